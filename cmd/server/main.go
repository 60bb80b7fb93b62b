package main

import "stationhr/internal/app/server"

func main() {
	server.Run()
}
