package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/chancache/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config file",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}

	if wrote {
		fmt.Printf("Initialized %s. Edit %s and set your channel name.\n", configDir, configPath)
	} else {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# chancache configuration

channel:
  name: "your_channel_here"
  # base_url: "https://t.me/s/your_channel_here"
  max_posts: 300
  latest_count: 20

schedule:
  interval: 1h

fetch:
  page_delay: 1s
  timeout: 60s
  # user_agent: "Mozilla/5.0 ..."

storage:
  data_dir: data
  cache_file: cached_posts.json
  latest_file: latest_posts.json
  status_file: parser_status.json

log:
  file: logs/parser.log
  level: info

serve:
  addr: ":8080"

feed:
  # title: "@your_channel_here"
  # file: data/feed.xml
`
