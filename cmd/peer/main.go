// Command peer is a headless meet participant. It creates and joins
// meetings, negotiates WebRTC with every peer of a room and follows the
// live room feed.
package main

func main() {
	Execute()
}
