// Command cachesim replays request scripts against a compressed cache.
package main

import "github.com/sarchlab/compcache/cachesim/cmd"

func main() {
	cmd.Execute()
}
