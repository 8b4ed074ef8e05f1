package main

import "taskeval/internal/app"

// @title           TaskEval API
// @version         1.0
// @description     Task submission and AI evaluation service with paid report unlock.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	app.Run()
}
