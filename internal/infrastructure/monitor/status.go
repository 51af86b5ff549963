package monitor

import "time"

type Status struct {
	Broker       bool      `json:"broker"`
	PostgreSQL   bool      `json:"postgresql"`
	Redis        bool      `json:"redis"`
	AuditStore   bool      `json:"audit_store"`
	AuditEntries int       `json:"audit_entries"`
	LastCheck    time.Time `json:"last_check"`
}
