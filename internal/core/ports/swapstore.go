package ports

// SwapSlateStore persists the two halves of every swap as raw json bytes.
type SwapSlateStore interface {
	Exists(id uint64) bool
	HasPrivate(id uint64) bool
	LoadPub(id uint64) ([]byte, error)
	LoadPrv(id uint64) ([]byte, error)
	SavePub(id uint64, data []byte) error
	SavePrv(id uint64, data []byte) error
	Delete(id uint64) error
	List() ([]uint64, error)
	Dir() string
}
