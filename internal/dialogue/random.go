package dialogue

import (
	"math/rand"
	"sync"
	"time"
)

// Rand es la fuente aleatoria que consume el motor. *rand.Rand la cumple;
// los tests inyectan una fuente con semilla fija o un stub.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// lockedRand serializa el acceso a *rand.Rand, que no es seguro entre goroutines.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRand crea una fuente segura para uso concurrente. seed 0 usa el reloj.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// pick devuelve un elemento al azar del pool, o "" si esta vacio.
func pick(rnd Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rnd.Intn(len(pool))]
}

// pickExcluding evita repetir la ultima frase dicha cuando hay alternativas.
func pickExcluding(rnd Rand, pool []string, last string) string {
	candidates := make([]string, 0, len(pool))
	for _, p := range pool {
		if p != last {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return pick(rnd, pool)
	}
	return pick(rnd, candidates)
}
