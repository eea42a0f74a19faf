package config

// mergeSockets merges built-in and user-defined socket persona descriptors.
// User-defined sockets override built-in sockets with the same id.
func mergeSockets(builtin, user map[string]SocketConfig) map[string]SocketConfig {
	result := make(map[string]SocketConfig, len(builtin)+len(user))
	for id, s := range builtin {
		result[id] = s
	}
	for id, s := range user {
		result[id] = s
	}
	return result
}
