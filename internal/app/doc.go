// Package app is the composition layer of classledger.
//
// # Package Structure
//
//	internal/app/
//	├── application.go   # Application struct, wiring and lifecycle
//	├── domain/          # Domain models (pure data structures)
//	│   ├── student/     # Students and class-hour balances
//	│   ├── ledger/      # Income (recharge) and class records
//	│   ├── deduction/   # Deduction rules, assignments and manual details
//	│   ├── report/      # Periods, windows and aggregate rows
//	│   ├── user/        # Accounts, sessions and login attempts
//	│   └── oplog/       # Operation log entries
//	├── storage/         # Repository interfaces and the sqlx implementation
//	├── services/        # Business logic, one package per concern
//	├── httpapi/         # REST handlers and routing
//	├── system/          # Lifecycle manager for background services
//	├── metrics/         # Prometheus collectors
//	└── runtime/         # Process wiring: config, database, HTTP server
//
// # Dependency Direction
//
//	cmd/classledger/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi ──► internal/middleware
//	      │                          │
//	      ▼                          ▼
//	internal/app (Application) ──► internal/app/services/*
//	                                 │
//	                                 ▼
//	                        internal/app/storage ──► internal/platform/database
//
// Services depend on storage interfaces only, so tests run them against a
// migrated SQLite database from pkg/testutil.
package app
