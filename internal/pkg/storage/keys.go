package storage

func scopedKey(scope, key string) string {
	return scope + ":" + key
}
