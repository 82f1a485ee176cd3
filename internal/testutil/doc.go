// Package testutil provides deterministic generators and userscript
// fixtures shared by package tests and the scenario harness.
package testutil
