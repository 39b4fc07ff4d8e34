//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "doctran"

var Default = Build

// Build compiles the doctran binary into ./bin.
func Build() error {
	mg.Deps(Vet)
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", "bin/"+binary, ".")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over all packages.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install puts the binary in $GOPATH/bin.
func Install() error {
	return sh.RunV("go", "install", ".")
}

// Clean removes build output.
func Clean() error {
	return os.RemoveAll("bin")
}
