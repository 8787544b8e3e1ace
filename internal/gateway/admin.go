package gateway

import (
	"net/http"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/catonblt/novelbuddies/internal/core"
)

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Loaded    bool   `json:"loaded"`
}

// handleListModules lists every compiled module, marking the ones the
// loaded configuration enables.
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var enabled []string
		if g.appConfig != nil {
			for id := range g.appConfig.Modules {
				enabled = append(enabled, id)
			}
		}

		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Loaded:    slices.Contains(enabled, string(m.ID)),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// secretPattern matches keys that likely contain secrets.
var secretPattern = regexp.MustCompile(`(?i)(secret|token|password|pass|key)`)

// handleGetConfig returns the loaded config with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.appConfig == nil {
			writeError(w, http.StatusServiceUnavailable, "config not available")
			return
		}

		generic, err := configMap(g.appConfig)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to serialize config")
			return
		}
		redactSecrets(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// configMap renders cfg as a generic map keyed like the YAML file. The
// round trip goes through YAML so module sections, held as raw nodes,
// keep their structure.
func configMap(cfg any) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// redactSecrets walks a map and replaces values whose keys match the secret pattern.
func redactSecrets(m map[string]any) {
	for k, v := range m {
		if secretPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = "***REDACTED***"
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			redactSecrets(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					redactSecrets(sub)
				}
			}
		}
	}
}
