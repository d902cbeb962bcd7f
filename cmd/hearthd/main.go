// hearthd is the personal assistant backend daemon and its control CLI.
package main

import "github.com/hearthd/hearth/internal/cli"

func main() {
	cli.Execute()
}
