// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package auth provides authentication and session primitives for IronLog.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a normalized email and a valid role
//   - NewSession - creates a Session with a user, token hash and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, logout, session checks and invite sign-up
//   - Sessions - token issue, lazy expiry, sweeping
//   - InviteService - invite create, list, revoke, check and redeem
//
// Errors returned by services carry samber/oops codes (see errors.go);
// callers branch on the code, never on the message.
package auth
