package main

import (
	"flag"
	"log"

	"github.com/danmuck/swarmctl/internal/config"
)

const defaultPath = "swarmctl.toml"

func main() {
	kind := flag.String("kind", config.KindRobot, "config kind: robot|redis|relay")
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s robot_id=%d transport=%s", *input, cfg.Core.RobotID, cfg.Transport.Name)
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, *output)
}
