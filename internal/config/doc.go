// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so secrets such as database passwords and API keys can stay out of the file.
package config
