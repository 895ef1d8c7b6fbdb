package output

import "BurstScope/internal/model"

// Writer consumes emitted burst records. Implementations decide whether a
// write failure is fatal for the run; the pipeline treats row writers as
// fatal and export writers as best-effort.
type Writer interface {
	Write(rec *model.BurstRecord) error
	Close() error
}
