package paxbuilder

import "testing"

func TestCleanupOnInterruptInstallsOnce(t *testing.T) {
	// Installing twice must not panic or double-register the handler;
	// builds call this once per Builder construction.
	CleanupOnInterrupt()
	CleanupOnInterrupt()
}
