//go:build !linux

package cache

func publish(tmp, dst string) error {
	return linkPublish(tmp, dst)
}
