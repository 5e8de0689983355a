//go:build mage

package main

import (
	"fmt"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const appName = "calctl"

// Default target to run when none is specified
var Default = Build

// Build builds the binary for the current platform
func Build() error {
	fmt.Println("Building", appName, "for", runtime.GOOS+"/"+runtime.GOARCH)
	return sh.Run("go", "build", "-o", appName, ".")
}

// Test runs the test suite
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "./...")
}

// Lint runs go fmt and go vet
func Lint() error {
	fmt.Println("Running go fmt...")
	if err := sh.Run("go", "fmt", "./..."); err != nil {
		return err
	}

	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

// Install builds and installs the binary to $GOPATH/bin or $GOBIN
func Install() error {
	fmt.Println("Installing", appName)
	return sh.Run("go", "install", ".")
}

// Clean removes build artifacts
func Clean() error {
	return sh.Rm(appName)
}

// Check runs all quality checks (lint, test)
func Check() error {
	mg.Deps(Lint, Test)
	return nil
}
