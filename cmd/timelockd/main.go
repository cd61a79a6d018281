// Command timelockd serves the BTC timelock bridge engine.
package main

func main() {
	Execute()
}
