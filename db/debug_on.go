//go:build statebasedebug

package db

const debugBuild = true
