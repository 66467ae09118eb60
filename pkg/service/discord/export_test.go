package discord

// ConvertMessage is exported for testing
var ConvertMessage = convertMessage

// IsThread is exported for testing
var IsThread = isThread

// IsNotFound is exported for testing
var IsNotFound = isNotFound
