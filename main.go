package main

import "github.com/artchain-labs/nft-broker/cmd"

func main() {
	cmd.Execute()
}
