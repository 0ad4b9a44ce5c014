// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for hubkey.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the HUBKEY_CONFIG environment variable (via
// [Load]). When neither is given, [Default] applies unchanged; there is
// no ~/.config discovery or file search.
//
// The file may carry development and production sections that override
// base values when [Config].Environment matches. Production without an
// explicit section logs JSON at info level.
//
// Path fields are expanded after loading: ${HOME}, ${HUBKEY_ROOT}, and
// ${VAR:-default} patterns are supported. No other environment
// variables override config values.
//
// This package depends on no other hubkey packages.
package config
