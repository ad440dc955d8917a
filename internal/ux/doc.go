// Package ux holds the interactive session state that outlives a single run
// of the TUI: which workspace, base, table and view the user is looking at.
//
// The state is an explicit object, a Navigator, handed to the interfaces that
// need it rather than a process-wide singleton. Its lifecycle is:
//
//  1. Load on start, which reads .airgrid/navigation.json and migrates files
//     written by older versions
//  2. Set* as the user moves around, then Save
//  3. Clear on logout, which forgets everything and deletes the file
package ux
