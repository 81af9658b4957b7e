package folio

import (
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/syncer"
)

// apiError is the body of every failed admin or public API call.
type apiError struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
	// SavedLocally is set when a write reached the local store but not
	// the remote backend.
	SavedLocally bool                   `json:"savedLocally,omitempty"`
	Migration    *syncer.MigrationReport `json:"migration,omitempty"`
}

// backendForm is the body of PUT /admin/api/backend/. Secrets left empty
// keep the stored ones.
type backendForm struct {
	Backend    content.BackendKind        `json:"backend"`
	BlobMode   content.BlobMode           `json:"blobMode"`
	JSONBin    content.BinSettings        `json:"jsonbin"`
	GitHub     content.GitSettings        `json:"github"`
	DocStore   content.DocStoreSettings   `json:"docstore"`
	Cloudinary content.CloudinarySettings `json:"cloudinary"`
	// Migrate copies the existing content into the new backend.
	Migrate *bool `json:"migrate,omitempty"`
}

func (f backendForm) settings() content.SiteSettings {
	return content.SiteSettings{
		Backend:    f.Backend,
		BlobMode:   f.BlobMode,
		JSONBin:    f.JSONBin,
		GitHub:     f.GitHub,
		DocStore:   f.DocStore,
		Cloudinary: f.Cloudinary,
	}
}

// backendView is what GET /admin/api/backend/ returns: the configuration
// without secrets, plus whether each secret is set.
type backendView struct {
	Backend     content.BackendKind        `json:"backend"`
	BlobMode    content.BlobMode           `json:"blobMode"`
	Ready       bool                       `json:"ready"`
	JSONBin     content.BinSettings        `json:"jsonbin"`
	GitHub      content.GitSettings        `json:"github"`
	DocStore    content.DocStoreSettings   `json:"docstore"`
	Cloudinary  content.CloudinarySettings `json:"cloudinary"`
	HasBinKey   bool                       `json:"hasBinKey"`
	HasGitToken bool                       `json:"hasGitToken"`
	HasPassword bool                       `json:"hasDocStorePassword"`
}

func newBackendView(s content.SiteSettings, ready bool) backendView {
	pub := s.Public()
	return backendView{
		Backend:     s.Backend,
		BlobMode:    s.BlobMode,
		Ready:       ready,
		JSONBin:     pub.JSONBin,
		GitHub:      pub.GitHub,
		DocStore:    pub.DocStore,
		Cloudinary:  pub.Cloudinary,
		HasBinKey:   s.JSONBin.APIKey != "",
		HasGitToken: s.GitHub.Token != "",
		HasPassword: s.DocStore.Password != "",
	}
}

// publicSettings is what GET /api/settings/ returns.
type publicSettings struct {
	BioText     string               `json:"bioText"`
	FooterLinks []content.FooterLink `json:"footerLinks"`
}

// backendResult is the answer to a backend change.
type backendResult struct {
	backendView
	Migration *syncer.MigrationReport `json:"migration,omitempty"`
}
