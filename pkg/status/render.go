package status

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format selects how a RepoStatus is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Errorf("unknown status format %q (want text, yaml or json)", s)
	}
}

// String renders the text form:
//
//	Paths Tracked: <n>
//	Untracked Paths:
//		<path>
//	Changed Paths:
//		<path>
//
// Each block is omitted when empty.
func (s *RepoStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paths Tracked: %d\n", s.TrackedCount)
	writeBlock(&b, "Untracked Paths:", s.Untracked)
	writeBlock(&b, "Changed Paths:", s.Changed)
	return b.String()
}

func writeBlock(b *strings.Builder, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteByte('\n')
	for _, p := range paths {
		b.WriteByte('\t')
		b.WriteString(p)
		b.WriteByte('\n')
	}
}

// Render writes s to w in the given format.
func Render(w io.Writer, s *RepoStatus, format Format) error {
	// Emit empty lists rather than null in structured output
	out := *s
	if out.Untracked == nil {
		out.Untracked = []string{}
	}
	if out.Changed == nil {
		out.Changed = []string{}
	}

	switch format {
	case FormatText, "":
		_, err := io.WriteString(w, s.String())
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&out); err != nil {
			return errors.Wrap(err, "failed to encode status as yaml")
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&out); err != nil {
			return errors.Wrap(err, "failed to encode status as json")
		}
		return nil
	default:
		return errors.Errorf("unknown status format %q", format)
	}
}
