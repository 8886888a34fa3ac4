package codec

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

const (
	familyText = "text/plain"
	familyZip  = "application/zip"
)

// checkContent rejects data whose detected MIME type does not descend from
// family, so that a workbook renamed to .csv fails with a clear message
// instead of decoding as garbage.
func checkContent(data []byte, family string) error {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(family) {
			return nil
		}
	}
	return fmt.Errorf("content is %s, not %s", detected.String(), family)
}
