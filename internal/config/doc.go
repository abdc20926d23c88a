// Package config provides configuration management for wdipanel. It loads
// configuration from several sources, validates it and resolves every file
// system path the pipeline writes to.
//
// # Configuration Sources
//
// Sources are applied in this order, later ones winning:
//
//  1. Default values
//  2. A YAML file (WDI_CONFIG_FILE, or wdipanel.yaml / config.yaml / configs/config.yaml)
//  3. Environment variables, including those loaded from a .env file
//
// # Environment Variables
//
// All environment variables follow the pattern WDI_<SECTION>_<FIELD>:
//
//	WDI_PIPELINE_START_DATE=2010-01-01
//	WDI_PIPELINE_LOCATIONS=USA;DEU
//	WDI_SOURCE_RATE_LIMIT=2
//	WDI_LOGGING_LEVEL=debug
//
// The indicator registry can only be overridden from the YAML file:
//
//	indicators:
//	  - code: NY.GDP.PCAP.KD
//	    name: GDP_per_capita
//
// # Path Management
//
// ResolvePaths turns PathsConfig into absolute artifact locations:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	raw := paths.RawPanelCSV
package config
