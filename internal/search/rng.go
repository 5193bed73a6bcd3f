package search

// deriveSeed выводит независимое зерно потока stream из базового.
// Финализатор SplitMix64: близкие входы дают далёкие выходы.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// Номера потоков. Воркеры TS используют свои индексы.
const (
	streamShared = 1 << 32
	streamGA     = streamShared + 1
)
