package story

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// cascade stories get stable ids so repeated builds name outputs the same way
var cascadeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docflow:cascade"))

// Cascade makes story with table of contents immediately followed by
// headings, each nested one level deeper than the previous one.
func Cascade(levels int) *Doc {
	d := &Doc{
		ID:     uuid.NewSHA1(cascadeNamespace, fmt.Appendf(nil, "%d", levels)),
		Title:  "Cascading headings",
		Lang:   language.English,
		Blocks: make([]Block, 0, levels+1),
	}
	d.Blocks = append(d.Blocks, Block{Kind: KindTOC})
	for i := range levels {
		d.Blocks = append(d.Blocks, Block{Kind: KindHeading, Level: i, Text: fmt.Sprintf("HEADER, LEVEL %d", i)})
	}
	return d
}
