//go:build mage

// Package main provides build targets for the docsmap project using Mage.
//
// Usage:
//
//	mage build             Compile the docsmap binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests (exclude integration)
//	mage test:integration  Run only integration tests (builds first)
//	mage test:cover        Run unit tests with a coverage profile
//	mage lint              Run go vet and golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install docsmap to GOPATH/bin
package main
