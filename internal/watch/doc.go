// Package watch re-runs a build whenever its content unit changes on disk.
package watch
