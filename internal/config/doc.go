// Package config provides configuration structures and utilities for
// peoplenet. It defines the options of the content API client, the graph
// expansion limits, the page cache location and the export settings, and
// loads them from a .peoplenet YAML file.
package config
