// Package config loads the schoolhealth configuration file (config.yaml).
//
// Top-level types:
//   - Config — input_file, log_level, interactive, analysis, report, server, alerts
//   - AnalysisConfig — priority_count, successful_count
//   - ReportConfig — text_file, metrics_file, color
//   - ServerConfig — enabled, http_port, broadcast_interval, auth
//   - AuthConfig — mode (apikey|none), header, key_env; Key() resolves from env
//   - AlertsConfig — rules (govaluate expressions) and webhook targets
//
// Load(path) loads .env (if present), reads the YAML file, applies defaults,
// then validates enums and alert expressions. An empty path yields the
// defaults alone so the tool runs without a config file.
//
// Watch(ctx, path, onChange) reloads the file whenever it changes.
package config
