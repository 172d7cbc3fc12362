// Package config loads the datatable YAML configuration and builds the
// logger and storage it describes.
//
// Example:
//
//	version: "1"
//	storage:
//	  driver: s3
//	  s3:
//	    bucket: game-data
//	    prefix: tables
//	    endpoint: http://localhost:9000
//	    path_style: true
//	editor:
//	  idle_delay: 400ms
//	  min_idle_ticks: 3
//	history:
//	  journal: .datatable/history.db
//	log:
//	  level: debug
//	  development: true
//	metrics:
//	  listen: ":9100"
package config
