// Package config provides configuration parsing and validation for the bnode tools.
//
// # Example Configuration
//
//	node:
//	  maxNodeSize: 4096
//	store:
//	  backend: file        # file or pebble
//	  path: ${BNODE_DATA:-/var/lib/bnode}
//	  sync: true
//	logging:
//	  level: info
//	  format: text
//	  output: stderr
//
// Missing keys keep the values from DefaultConfig. ${VAR} and
// ${VAR:-default} references are substituted from the environment before
// parsing.
//
//	cfg, err := config.LoadConfig("bnode.yaml")
//	if err != nil {
//	    return err
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    ...
//	}
package config
