package naming

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// DefaultHint replaces hints that sanitise down to nothing.
	DefaultHint = "file"

	maxHintLen = 128
	maxExtLen  = 16
)

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dashRuns        = regexp.MustCompile(`-{2,}`)
)

// Generator issues asset keys of the form "{millis}-{hint}". The millisecond component is
// strictly increasing for the lifetime of the Generator: when the clock has not moved past the
// last issued value, the last value plus one is used instead. Keys are therefore unique within
// the process no matter how coarse the clock is or how many goroutines call Generate.
type Generator struct {
	now  func() time.Time
	last atomic.Int64
}

type Option func(g *Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new unique key for an asset described by hint, typically the
// client-supplied file name.
func (g *Generator) Generate(hint string) string {
	return strconv.FormatInt(g.next(), 10) + "-" + Sanitize(hint)
}

func (g *Generator) next() int64 {
	now := g.now().UnixMilli()
	for {
		last := g.last.Load()
		candidate := max(now, last+1)
		if g.last.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}

// Sanitize turns a client-supplied name into a safe, single path segment. Only the final
// segment of a path is kept, the base name and extension are cleaned separately so the extension
// survives a base name with no usable characters, characters outside [A-Za-z0-9._-] become
// dashes, and leading dots and dashes are dropped so the result can never be hidden or climb
// directories.
func Sanitize(hint string) string {
	if i := strings.LastIndexAny(hint, `/\`); i >= 0 {
		hint = hint[i+1:]
	}
	hint = strings.TrimSpace(hint)

	name, ext := hint, filepath.Ext(hint)
	// ".bashrc" and ".." have no base name to speak of; treat them as extension-less
	if base := strings.TrimSuffix(hint, ext); strings.Trim(base, ".") != "" {
		name = base
		ext = cleanSegment(strings.TrimPrefix(ext, "."))
		if len(ext) > maxExtLen {
			name, ext = hint, ""
		}
	} else {
		ext = ""
	}

	name = cleanSegment(name)
	if name == "" {
		name = DefaultHint
	}
	if ext == "" {
		return truncate(name, maxHintLen)
	}
	name = truncate(name, maxHintLen-len(ext)-1)
	if name == "" {
		name = DefaultHint
	}
	return name + "." + ext
}

func cleanSegment(s string) string {
	s = disallowedChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, ".-")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], ".-")
}
