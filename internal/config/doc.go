// Package config handles configuration loading for the widget core.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion and merged over built-in defaults. The defaults carry the
// constants the shipped widget hardcoded: the localStorage-style key
// names, the 48 hour session TTL, the collaborator endpoint paths and
// the user-facing acknowledgement texts.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  key: "${YJAR_CHAT_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  ttl: "48h"
package config
