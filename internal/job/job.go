// Package job models the unit of work dispatched to a host worker: one
// source file paired with its probed media info and the template that
// describes how to encode it.
package job

import (
	"path/filepath"

	"github.com/mlsmithjr/wandarr-go/internal/mediainfo"
	"github.com/mlsmithjr/wandarr-go/internal/template"
)

// EncodeJob is the triple (absolute source path, MediaInfo, Template).
type EncodeJob struct {
	SourcePath string
	Media      *mediainfo.MediaInfo
	Template   *template.Template
}

// New constructs an EncodeJob, resolving sourcePath to an absolute path.
func New(sourcePath string, media *mediainfo.MediaInfo, tmpl *template.Template) (*EncodeJob, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, err
	}
	return &EncodeJob{SourcePath: abs, Media: media, Template: tmpl}, nil
}

// BaseName returns the file's base name, the identity status events key on.
func (j *EncodeJob) BaseName() string {
	return filepath.Base(j.SourcePath)
}

// ShouldAbort implements the mid-flight veto predicate:
// true iff threshold_check < 100, pct_done has reached threshold_check, and
// pct_comp is still below the required threshold. It is monotonic in
// pct_done: once true at (d, c) it stays true for any d' >= d.
func (j *EncodeJob) ShouldAbort(pctDone, pctComp int) bool {
	check := j.Template.ThresholdCheck()
	if check >= 100 {
		return false
	}
	return pctDone >= check && pctComp < j.Template.Threshold
}
