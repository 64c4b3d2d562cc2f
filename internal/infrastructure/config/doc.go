// Package config handles loading and validating Parley configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The JWT secret must be changed from any example value before production use
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
