package orm

import (
	"fmt"
	"time"

	"github.com/medatechnology/goutil/print"
	"github.com/medatechnology/goutil/timedate"
)

// Status of a backend, mainly for the startup log and health checks. Some
// information might be empty depending on the backend.
type StatusStruct struct {
	URL             string        `json:"url,omitempty"`         // connection target, never with the password
	Version         string        `json:"version,omitempty"`     // version of the DBMS
	DBMS            string        `json:"dbms,omitempty"`        // postgresql | sqlite
	DBMSDriver      string        `json:"dbms_driver,omitempty"` // lib/pq | glebarez/go-sqlite
	StartTime       time.Time     `json:"start_time,omitempty"`  // when this process opened the pool
	Uptime          time.Duration `json:"uptime,omitempty"`
	DBSize          int64         `json:"db_size,omitempty"` // if applicable
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
}

// PrintPretty prints the status in aligned label/value lines.
// This is mainly for debugging and logging
func (s *StatusStruct) PrintPretty(indent, title string) {
	if title == "" {
		title = "Status"
	}
	fmt.Println(title + ":")
	uptime := timedate.DurationUptimeShort(s.Uptime)
	if uptime == "" {
		uptime = "less than a minute"
	}
	fields := []struct {
		label string
		value string
	}{
		{"URL", s.URL},
		{"DBMS", s.DBMS},
		{"Driver", s.DBMSDriver},
		{"Version", s.Version},
		{"Start Time", s.StartTime.Format("2006-01-02 15:04:05")},
		{"Uptime", uptime},
		{"DB Size", print.BytesToHumanReadable(s.DBSize, " ")},
		{"Connections", fmt.Sprintf("%d open, %d in use, %d idle", s.OpenConnections, s.InUse, s.Idle)},
	}

	maxLabelLength := 0
	for _, field := range fields {
		if len(field.label) > maxLabelLength {
			maxLabelLength = len(field.label)
		}
	}

	for _, field := range fields {
		if field.value != "" && field.value != "0001-01-01 00:00:00" && field.value != "0 B" && field.value != "less than a minute" {
			fmt.Printf("%s%-*s: %s\n", indent, maxLabelLength, field.label, field.value)
		}
	}
}
