// Package app provides application initialization and lifecycle management
// for the f5lm tool. It wires configuration, logging, the device record
// store, transports and the command shell together at startup.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Resolve paths and ensure the data/log directories exist
//	3. Initialize logging
//	4. Open the device record store
//	5. Wire credential resolution, transports and the verification poller
//	6. Build the operation service and the command shell
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    // report and exit
//	}
//	defer application.Close()
//	err = application.Run(ctx, os.Args[1:])
//
// # Error Handling
//
// All initialization errors are returned to the caller. The package never
// calls os.Exit() directly, so the main function controls the exit
// process and deferred cleanup always runs.
package app
