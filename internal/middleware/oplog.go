package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/classledger/internal/app/domain/oplog"
	"github.com/R3E-Network/classledger/internal/logging"
)

// Recorder persists operation log entries.
type Recorder interface {
	Record(ctx context.Context, e oplog.Entry)
}

type annotation struct {
	targetID    *int64
	description string
	actorID     int64
	actorName   string
}

type annotationKey struct{}

// Annotate sets the target and description of the audited operation. It is
// a no-op outside an Audit handler.
func Annotate(ctx context.Context, targetID int64, description string) {
	if a, ok := ctx.Value(annotationKey{}).(*annotation); ok {
		id := targetID
		a.targetID = &id
		a.description = description
	}
}

// AnnotateActor names the acting user for routes that run before
// authentication, such as login.
func AnnotateActor(ctx context.Context, userID int64, username string) {
	if a, ok := ctx.Value(annotationKey{}).(*annotation); ok {
		a.actorID = userID
		a.actorName = username
	}
}

// Audit records an operation log entry after the wrapped handler succeeds.
func Audit(rec Recorder, opType, targetType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := &annotation{}
			ctx := context.WithValue(r.Context(), annotationKey{}, a)
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			if rw.statusCode >= http.StatusBadRequest {
				return
			}

			entry := oplog.Entry{
				OperationType: opType,
				TargetType:    targetType,
				Description:   a.description,
			}
			userID := a.actorID
			if p, ok := PrincipalFrom(r.Context()); ok && userID == 0 {
				userID = p.UserID
			}
			if userID != 0 {
				entry.UserID = &userID
			}
			switch {
			case a.targetID != nil:
				entry.TargetID = a.targetID
			case routeID(r) != 0:
				id := routeID(r)
				entry.TargetID = &id
			case userID != 0:
				id := userID
				entry.TargetID = &id
			}
			if entry.Description == "" {
				entry.Description = opType
			}

			// Detached from cancellation so a client hang-up cannot drop the entry.
			rec.Record(context.WithoutCancel(logging.WithUserID(r.Context(), userID)), entry)
		})
	}
}

func routeID(r *http.Request) int64 {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
