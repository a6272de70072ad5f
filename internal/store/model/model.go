// Package model defines the directory data model shared by the store
// interface and its implementations: Directory entries and their Path
// materialisation, multi-valued Attributes, User/Group specialisations,
// catalogue settings, network policies, and the singleton password policy.
package model

import "time"

// Directory is a node in the directory tree (spec data model "Directory
// entry"). Non-root entries always have a live ParentID.
type Directory struct {
	ID           int64
	ParentID     *int64
	ObjectClass  string
	Name         string
	WhenCreated  time.Time
	WhenChanged  time.Time
	Depth        int
	ObjectSID    string
	ObjectGUID   string
}

// Path is the materialised RDN-component sequence from root to an entry,
// root-most component first. Path[len(Path)-1] always equals the owning
// Directory's Name.
type Path struct {
	DirectoryID int64
	Components  []string
}

// Attribute is a multi-valued name/value pair on a Directory entry.
// Exactly one of Value or BValue is populated for a given row.
type Attribute struct {
	ID          int64
	DirectoryID int64
	Name        string
	Value       string
	BValue      []byte
}

// IsBinary reports whether this attribute carries binary data.
func (a Attribute) IsBinary() bool { return a.BValue != nil }

// User specialises a Directory entry with ObjectClass "user".
type User struct {
	DirectoryID       int64
	SAMAccountName    string
	UserPrincipalName string
	DisplayName       string
	Mail              string
	PasswordHash      string
	PasswordHistory   []string
	LastLogon         *time.Time
	AccountExpires    *time.Time
}

// Group specialises a Directory entry with ObjectClass "group".
type Group struct {
	DirectoryID int64
}

// CatalogueSetting is a process-wide key-value server setting.
type CatalogueSetting struct {
	Name  string
	Value string
}

// Well-known CatalogueSetting names.
const (
	SettingDefaultNamingContext = "defaultNamingContext"
	SettingObjectSID            = "objectSid"
	SettingObjectGUID           = "objectGUID"
	SettingMFAKey               = "mfa_key"
	SettingMFASecret            = "mfa_secret"
	SettingMFAKeyLDAP           = "mfa_key_ldap"
	SettingMFASecretLDAP        = "mfa_secret_ldap"
	SettingVendorName           = "vendorName"
	SettingVendorVersion        = "vendorVersion"
)

// NetworkPolicy gates Bind by source network and, optionally, group
// membership and MFA.
type NetworkPolicy struct {
	ID           int64
	Name         string
	CIDR         string
	Enabled      bool
	Priority     int
	Groups       []string // DNs of permitted groups; empty = any
	MFARequired  bool
}

// PasswordPolicy is the singleton password-complexity and ageing policy.
type PasswordPolicy struct {
	HistoryLength      int // 0-24
	MaxAgeDays         int // 0-999
	MinAgeDays         int // <= MaxAgeDays
	MinLength          int // 0-256
	ComplexityRequired bool
}

// WindowsTimestamp models the Active-Directory pwdLastSet convention:
// a FILETIME-like attribute value where "0" forces a password reset on
// next bind. We store it as an LDAP Attribute on the owning Directory
// rather than a typed column, matching how the original schema treats it.
type WindowsTimestamp struct {
	ForceReset bool
	At         time.Time
}

// ParseWindowsTimestamp decodes the string form of a pwdLastSet value.
func ParseWindowsTimestamp(s string) WindowsTimestamp {
	if s == "" || s == "0" {
		return WindowsTimestamp{ForceReset: true}
	}
	// The upstream source stores this as Unix-seconds text, not a true
	// Win32 FILETIME; no ecosystem FILETIME codec in the example pack
	// covers that format, so we keep the simpler textual convention.
	var sec int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return WindowsTimestamp{ForceReset: true}
		}
		sec = sec*10 + int64(c-'0')
	}
	return WindowsTimestamp{At: time.Unix(sec, 0).UTC()}
}

// String renders the WindowsTimestamp back to its stored attribute form.
func (w WindowsTimestamp) String() string {
	if w.ForceReset {
		return "0"
	}
	return timeToUnixString(w.At)
}

func timeToUnixString(t time.Time) string {
	sec := t.Unix()
	if sec == 0 {
		return "0"
	}
	neg := sec < 0
	if neg {
		sec = -sec
	}
	var buf [20]byte
	i := len(buf)
	for sec > 0 {
		i--
		buf[i] = byte('0' + sec%10)
		sec /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
