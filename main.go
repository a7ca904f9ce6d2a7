// companion hosts an editor assistant panel.
package main

import (
	"fmt"
	"os"

	"github.com/linanwx/companion/cmd"
	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	dir, _ := config.ConfigDir()
	if err := logger.Init(cfg.BuildLoggerConfig(), dir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
	}
	cmd.Execute()
}
