// Copyright (c) 2017 The Decred developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for txpackd.  txpackd writes it out when the
default configuration file does not exist yet, so every option is documented
next to the place where it would be set.
*/
package sampleconfig
