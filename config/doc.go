// Package config loads tool configuration from a YAML file, an optional
// .env file and prefixed environment variables using Viper.
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("wmorder", &cfg, config.WithConfigFile(path))
//
// Environment variables override file values. With the default prefix for
// "wmorder", WMORDER_BUILD_WORKERS=4 sets build.workers.
package config
