package main

// General API documentation for swaggo. Regenerate with `swag init` when the
// status API changes.
//
// @title           gaiactl status API
// @version         1.0
// @description     Read-only HTTP API over the local Gaia node fleet.
//
// @BasePath  /
//
// @schemes http
