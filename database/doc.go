// Package database provides connection management, startup migrations,
// configuration types, logging, health checks, and driver error
// classification built on top of Bun.
package database
