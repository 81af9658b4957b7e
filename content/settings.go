package content

import (
	"fmt"
	"strings"
)

// SettingsID is the id of the one SiteSettings record.
const SettingsID = "main"

// BackendKind selects the remote backend.
type BackendKind string

const (
	BackendNone     BackendKind = "none"
	BackendDocStore BackendKind = "docstore"
	BackendBin      BackendKind = "bin"
	BackendGit      BackendKind = "git"
)

// ParseBackendKind maps user input to a BackendKind. Empty means none and
// "jsonbin" is accepted for bin.
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return BackendNone, nil
	case "jsonbin":
		return BackendBin, nil
	case BackendNone, BackendDocStore, BackendBin, BackendGit:
		return k, nil
	}
	return "", invalid("unknown backend %q", s)
}

// BlobMode selects where uploaded files end up.
type BlobMode string

const (
	BlobInline BlobMode = "inline"
	BlobHosted BlobMode = "hosted"
	BlobGit    BlobMode = "git"
	BlobDisk   BlobMode = "disk"
)

// ParseBlobMode maps user input to a BlobMode. Empty means inline.
func ParseBlobMode(s string) (BlobMode, error) {
	switch m := BlobMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return BlobInline, nil
	case BlobInline, BlobHosted, BlobGit, BlobDisk:
		return m, nil
	}
	return "", invalid("unknown blob mode %q", s)
}

// FooterLink is one entry of the footer link list.
type FooterLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// BinSettings are the JSONBin coordinates. BinID is filled in once the
// first push creates the bin.
type BinSettings struct {
	APIKey string `json:"apiKey,omitempty"`
	BinID  string `json:"binId,omitempty"`
}

// Configured reports whether the bin backend can be attempted.
func (b BinSettings) Configured() bool { return b.APIKey != "" }

// GitSettings locate the content document inside a GitHub repository.
type GitSettings struct {
	Owner         string `json:"owner,omitempty"`
	Repo          string `json:"repo,omitempty"`
	Branch        string `json:"branch,omitempty"`
	Token         string `json:"token,omitempty"`
	Path          string `json:"path,omitempty"`
	ImagesFolder  string `json:"imagesFolder,omitempty"`
	IncludeVideos bool   `json:"includeVideos,omitempty"`
}

// Configured reports whether the repository coordinates are all present.
func (g GitSettings) Configured() bool {
	return g.Owner != "" && g.Repo != "" && g.Token != ""
}

// WithDefaults fills the branch, document path and asset folder.
func (g GitSettings) WithDefaults() GitSettings {
	if g.Branch == "" {
		g.Branch = "main"
	}
	if g.Path == "" {
		g.Path = "content.json"
	}
	if g.ImagesFolder == "" {
		g.ImagesFolder = "images"
	}
	return g
}

// DocStoreSettings are the SurrealDB connection parameters.
type DocStoreSettings struct {
	Address   string `json:"address,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Database  string `json:"database,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
}

func (d DocStoreSettings) Configured() bool {
	return d.Address != "" && d.Namespace != "" && d.Database != ""
}

// CloudinarySettings drive unsigned uploads to Cloudinary.
type CloudinarySettings struct {
	CloudName    string `json:"cloudName,omitempty"`
	UploadPreset string `json:"uploadPreset,omitempty"`
}

func (c CloudinarySettings) Configured() bool {
	return c.CloudName != "" && c.UploadPreset != ""
}

// SiteSettings is the singleton record: public site text plus the backend
// and blob configuration.
type SiteSettings struct {
	ID          string             `json:"id"`
	BioText     string             `json:"bioText"`
	FooterLinks []FooterLink       `json:"footerLinks"`
	Backend     BackendKind        `json:"backend,omitempty"`
	BlobMode    BlobMode           `json:"blobMode,omitempty"`
	JSONBin     BinSettings        `json:"jsonbin"`
	GitHub      GitSettings        `json:"github"`
	DocStore    DocStoreSettings   `json:"docstore"`
	Cloudinary  CloudinarySettings `json:"cloudinary"`
}

// DefaultSettings is what an absent record reads as.
func DefaultSettings() SiteSettings {
	return SiteSettings{ID: SettingsID, FooterLinks: []FooterLink{}, Backend: BackendNone, BlobMode: BlobInline}
}

func (s SiteSettings) Collection() Collection { return Settings }
func (s SiteSettings) Key() string            { return SettingsID }
func (s SiteSettings) SortOrder() int         { return 0 }
func (s SiteSettings) Parent() string         { return "" }

// Normalize forces the singleton id and stores the canonical enum values.
// Unknown values are kept as they are for Validate to reject.
func (s *SiteSettings) Normalize() {
	s.ID = SettingsID
	if s.FooterLinks == nil {
		s.FooterLinks = []FooterLink{}
	}
	if k, err := ParseBackendKind(string(s.Backend)); err == nil {
		s.Backend = k
	}
	if m, err := ParseBlobMode(string(s.BlobMode)); err == nil {
		s.BlobMode = m
	}
}

// Validate checks enums and footer links.
func (s SiteSettings) Validate() error {
	if _, err := ParseBackendKind(string(s.Backend)); err != nil {
		return err
	}
	if _, err := ParseBlobMode(string(s.BlobMode)); err != nil {
		return err
	}
	for i, l := range s.FooterLinks {
		if strings.TrimSpace(l.Text) == "" || strings.TrimSpace(l.URL) == "" {
			return invalid("footer link %d needs text and url", i)
		}
	}
	return nil
}

// Public returns a copy safe to publish or push to a remote: every secret
// is blanked, coordinates stay.
func (s SiteSettings) Public() SiteSettings {
	s.JSONBin.APIKey = ""
	s.GitHub.Token = ""
	s.DocStore.Password = ""
	s.FooterLinks = append([]FooterLink(nil), s.FooterLinks...)
	if s.FooterLinks == nil {
		s.FooterLinks = []FooterLink{}
	}
	return s
}

// WithCredentialsFrom returns s with the backend and blob configuration of
// local. Remote copies of the settings never carry credentials, so mirroring
// them must not wipe the ones held locally.
func (s SiteSettings) WithCredentialsFrom(local SiteSettings) SiteSettings {
	s.ID = SettingsID
	s.Backend = local.Backend
	s.BlobMode = local.BlobMode
	s.JSONBin = local.JSONBin
	s.GitHub = local.GitHub
	s.DocStore = local.DocStore
	s.Cloudinary = local.Cloudinary
	return s
}

// BackendConfigured reports whether the selected backend has the fields it
// needs to be attempted. Real validation happens on first use.
func (s SiteSettings) BackendConfigured() bool {
	switch s.Backend {
	case BackendDocStore:
		return s.DocStore.Configured()
	case BackendBin:
		return s.JSONBin.Configured()
	case BackendGit:
		return s.GitHub.Configured()
	}
	return false
}

// Fingerprint identifies the backend configuration. Two settings with the
// same fingerprint drive the same backend instance.
func (s SiteSettings) Fingerprint() string {
	switch s.Backend {
	case BackendDocStore:
		d := s.DocStore
		return fmt.Sprintf("docstore|%s|%s|%s|%s|%s", d.Address, d.Namespace, d.Database, d.Username, d.Password)
	case BackendBin:
		return "bin|" + s.JSONBin.APIKey + "|" + s.JSONBin.BinID
	case BackendGit:
		g := s.GitHub.WithDefaults()
		return fmt.Sprintf("git|%s|%s|%s|%s|%s|%s|%t", g.Owner, g.Repo, g.Branch, g.Token, g.Path, g.ImagesFolder, g.IncludeVideos)
	}
	return "none"
}
