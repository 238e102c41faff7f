// Package collecting describes the host a meter runs on. The description is
// gathered once per process and stamped beside the report log.
package collecting

import "InferenceMeter/pkg/exporting"

// Collector defines the interface for all static host collectors.
type Collector interface {
	Name() string
	CollectStatic() (exporting.Record, error)
	Close() error
}
