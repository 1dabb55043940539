// remoteconf.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

package main

import "git.andrewnw.xyz/CyberShell/remoteconf/cmd"

func main() {
	cmd.Execute()
}
