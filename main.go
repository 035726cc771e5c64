// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/purpleidea/propsheet/cli"
	cliUtil "github.com/purpleidea/propsheet/cli/util"

	"github.com/spf13/afero"
)

// These are set at compile time.
var (
	program = "propsheet"
	version = "0.0.1"
)

const tagline = "evaluate property sheets and solve layouts"

func main() {
	log.SetFlags(log.LstdFlags - log.Ldate) // remove the date for now
	log.SetOutput(os.Stderr)

	data := &cliUtil.Data{
		Program: program,
		Version: version,
		Tagline: tagline,
		Flags: cliUtil.Flags{
			Logf: log.Printf,
		},
		Args:   os.Args,
		Fs:     afero.NewOsFs(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := cli.CLI(context.Background(), data); err != nil {
		fmt.Fprintf(os.Stderr, "Exception: %s\n", err)
		os.Exit(1)
		return
	}
}
