package config

import (
	"fmt"
	"os"

	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
)

const defaultConfigTemplate = `# linktext configuration
source:
  # Vault root: a directory tree of .wiki/.md pages. A subdirectory or a
  # "Ns:Name" filename prefix places a page in that namespace.
  dir: ./vault
  # Rewritten pages are emitted here.
  output: ./out
  # Uncomment to sync the vault from a git repository before each render.
  # repo:
  #   url: https://example.com/wiki/vault.git
  #   branch: main
  #   depth: 1
  # workspace: ./workspace

# Namespaces beyond the main one. Pages may declare default link text only
# in namespaces with linktext: true (the main namespace always may).
namespaces:
  - name: Help
    linktext: true
  - name: Talk
    linktext: false
  - name: File
    aliases: [Image]
    linktext: false
    file: true

render:
  # Byte ceiling for total substitution growth per render pass (0 = unlimited).
  inclusion_budget: 2097152
  workers: 4
  # Daemon mode re-renders the whole vault this often.
  interval: 1h

store:
  # sqlite database holding declared formats; ":memory:" for ephemeral runs.
  path: ./linktext.db

logging:
  level: info   # debug|info|warn|error
  format: text  # text|json

metrics:
  enabled: false
  listen: ":9464"

notify:
  enabled: false
  # url: nats://localhost:4222
  # subject: linktext.warnings
`

// WriteDefault writes a commented starter configuration to path.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return apperrors.ConfigError(
			fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path))
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "failed to write config file")
	}
	return nil
}
