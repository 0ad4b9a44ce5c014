// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// hubkey retrieves a vault key from a Hub key-custody service for this
// device.
//
// Commands:
//
//	hubkey device init   generate and seal this device's key pair
//	hubkey device id     print the device ID Hub knows this device by
//	hubkey device show   dump the key file (public data only)
//	hubkey fetch         run the key retrieval protocol for a vault
//	hubkey version       print version information
//
// fetch exits 0 when Hub released the key, 2 when a person has to act
// first (set up or register the device, get access, fix the license),
// 130 when cancelled, and 1 on any other failure.
package main
