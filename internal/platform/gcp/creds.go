package gcp

import (
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/dossier-backend/internal/platform/envutil"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

// clientOptions picks the storage client's credentials and names the source
// for the startup log. The emulator runs unauthenticated. Otherwise inline
// JSON wins over a key file, and neither means application default
// credentials.
func clientOptions(cfg objectstore.Config) ([]option.ClientOption, string) {
	if cfg.IsEmulatorMode() {
		return []option.ClientOption{option.WithoutAuthentication()}, "none"
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if raw := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", ""); raw != "" {
		return append(opts, option.WithCredentialsJSON([]byte(raw))), "inline_json"
	}
	if path := envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""); path != "" {
		return append(opts, option.WithCredentialsFile(path)), "credentials_file"
	}
	return opts, "application_default"
}
