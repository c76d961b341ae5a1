// Package vaspmd holds the file names and template tokens shared by the
// equilibration and search pipelines.
package vaspmd

// Files VASP reads from, or writes to, the directory it is run in.
const (
	POSCAR  = "POSCAR"
	CONTCAR = "CONTCAR"
	WAVECAR = "WAVECAR"
	POTCAR  = "POTCAR"
	KPOINTS = "KPOINTS"
	INCAR   = "INCAR"
	OSZICAR = "OSZICAR"
)

// Tokens replaced verbatim inside templated INCAR files. They are chosen to be
// characters that never occur in a real INCAR.
const (
	StepsToken     = "数" // NSW for a single run
	StartTempToken = "無" // TEBEG
	TempToken      = "茶" // target temperature, substituted by md init
	NparToken      = "道" // NPAR, substituted by md init
)
