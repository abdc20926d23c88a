// Package app wires the pipeline, its run store and the HTTP surface together
// and manages their lifecycle.
//
// # Initialization Flow
//
//  1. Resolve paths and create the data, processed and logs directories
//  2. Initialize logging and OpenTelemetry
//  3. Create the World Bank client and open the SQLite run store
//  4. Register the pipeline steps and build the services on top of them
//  5. Build the chi router and the HTTP server
//
// Close releases the run store and flushes telemetry; Run does so on SIGINT
// or SIGTERM after shutting the server down.
package app
