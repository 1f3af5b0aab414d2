package html2pdf

import (
	"fmt"
	"os"

	"github.com/h2non/filetype"
)

// outputMode is the permission of every published PDF. Temp files start at 0600.
const outputMode = 0o644

// publishPDF checks that tmp holds a PDF and renames it onto dest.
// dest is never touched when the check fails.
func publishPDF(tmp, dest string) (int64, error) {
	kind, err := filetype.MatchFile(tmp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if kind.Extension != "pdf" {
		return 0, fmt.Errorf("%w: detected %q", ErrInvalidPDF, kind.MIME.Value)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	if err := os.Chmod(tmp, outputMode); err != nil {
		return 0, fmt.Errorf("publishing %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, fmt.Errorf("publishing %s: %w", dest, err)
	}
	return info.Size(), nil
}
