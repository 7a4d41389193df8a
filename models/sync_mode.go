package models

// SyncMode is the organization-wide propagation policy: whether a template
// edit fans out to derived instances automatically, after confirmation, or
// never.
type SyncMode string

const (
	SyncAlways SyncMode = "always"
	SyncPrompt SyncMode = "prompt"
	SyncNever  SyncMode = "never"
)

// DefaultSyncMode applies when the setting is absent or unrecognised.
const DefaultSyncMode = SyncPrompt

// Valid reports whether m is one of the three recognised modes.
func (m SyncMode) Valid() bool {
	switch m {
	case SyncAlways, SyncPrompt, SyncNever:
		return true
	}
	return false
}

// ParseSyncMode returns the mode for raw, falling back to DefaultSyncMode for
// anything unrecognised. Reads are forgiving; writes go through Valid.
func ParseSyncMode(raw string) SyncMode {
	m := SyncMode(raw)
	if !m.Valid() {
		return DefaultSyncMode
	}
	return m
}
