package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configuredSettings() SiteSettings {
	s := DefaultSettings()
	s.BioText = "bio"
	s.FooterLinks = []FooterLink{{Text: "GitHub", URL: "https://github.com/x"}}
	s.Backend = BackendGit
	s.JSONBin = BinSettings{APIKey: "bin-key", BinID: "b1"}
	s.GitHub = GitSettings{Owner: "o", Repo: "r", Token: "ghp_secret"}
	s.DocStore = DocStoreSettings{Address: "ws://db/rpc", Namespace: "n", Database: "d", Username: "root", Password: "pw"}
	s.Cloudinary = CloudinarySettings{CloudName: "c", UploadPreset: "p"}
	return s
}

func TestPublicStripsSecrets(t *testing.T) {
	s := configuredSettings()
	pub := s.Public()
	assert.Empty(t, pub.JSONBin.APIKey)
	assert.Empty(t, pub.GitHub.Token)
	assert.Empty(t, pub.DocStore.Password)
	assert.Equal(t, "b1", pub.JSONBin.BinID)
	assert.Equal(t, "bio", pub.BioText)

	// original untouched
	assert.Equal(t, "ghp_secret", s.GitHub.Token)
	pub.FooterLinks[0].Text = "changed"
	assert.Equal(t, "GitHub", s.FooterLinks[0].Text)
}

func TestWithCredentialsFromKeepsLocalConfig(t *testing.T) {
	local := configuredSettings()
	remote := local.Public()
	remote.BioText = "remote bio"
	remote.Backend = BackendNone

	merged := remote.WithCredentialsFrom(local)
	assert.Equal(t, "remote bio", merged.BioText)
	assert.Equal(t, BackendGit, merged.Backend)
	assert.Equal(t, "ghp_secret", merged.GitHub.Token)
	assert.Equal(t, "bin-key", merged.JSONBin.APIKey)
}

func TestNormalizeForcesSingletonID(t *testing.T) {
	s := SiteSettings{ID: "other"}
	s.Normalize()
	assert.Equal(t, SettingsID, s.ID)
	assert.Equal(t, BackendNone, s.Backend)
	assert.Equal(t, BlobInline, s.BlobMode)
	assert.NotNil(t, s.FooterLinks)
	require.NoError(t, s.Validate())
}

func TestNormalizeStoresCanonicalEnums(t *testing.T) {
	s := SiteSettings{Backend: " Git ", BlobMode: "DISK"}
	s.Normalize()
	assert.Equal(t, BackendGit, s.Backend)
	assert.Equal(t, BlobDisk, s.BlobMode)

	s = SiteSettings{Backend: "jsonbin"}
	s.Normalize()
	assert.Equal(t, BackendBin, s.Backend)

	s = SiteSettings{Backend: "ftp"}
	s.Normalize()
	assert.Equal(t, BackendKind("ftp"), s.Backend)
	assert.ErrorIs(t, s.Validate(), ErrInvalid)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	s := DefaultSettings()
	s.Backend = "ftp"
	assert.ErrorIs(t, s.Validate(), ErrInvalid)

	s = DefaultSettings()
	s.FooterLinks = []FooterLink{{Text: "", URL: "https://x"}}
	assert.ErrorIs(t, s.Validate(), ErrInvalid)
}

func TestBackendConfigured(t *testing.T) {
	s := DefaultSettings()
	assert.False(t, s.BackendConfigured())

	s.Backend = BackendBin
	assert.False(t, s.BackendConfigured())
	s.JSONBin.APIKey = "k"
	assert.True(t, s.BackendConfigured())

	s.Backend = BackendDocStore
	s.DocStore = DocStoreSettings{Address: "ws://x", Namespace: "n"}
	assert.False(t, s.BackendConfigured())
}

func TestFingerprintTracksBackendFields(t *testing.T) {
	a := configuredSettings()
	b := a
	b.BioText = "different bio"
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.GitHub.Branch = "main"
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "default branch is implied")

	b.GitHub.Repo = "other"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestParseBackendKindAndBlobMode(t *testing.T) {
	k, err := ParseBackendKind("")
	require.NoError(t, err)
	assert.Equal(t, BackendNone, k)
	k, err = ParseBackendKind("Bin")
	require.NoError(t, err)
	assert.Equal(t, BackendBin, k)
	k, err = ParseBackendKind("jsonbin")
	require.NoError(t, err)
	assert.Equal(t, BackendBin, k)

	m, err := ParseBlobMode("disk")
	require.NoError(t, err)
	assert.Equal(t, BlobDisk, m)
	_, err = ParseBlobMode("s3")
	assert.ErrorIs(t, err, ErrInvalid)
}
