package main

import (
	"log"

	"helpdeskbot/core/cmd"
	"helpdeskbot/helpdesk/app"
	"helpdeskbot/helpdesk/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := carrier.(*config.Config)
			if !ok {
				log.Fatal("unexpected config type")
			}
			return app.Bootstrap(cfg)
		},
	})
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
}
