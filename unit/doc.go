// Package unit reads wmake unit descriptors.
//
// A unit is a directory with a Make/files naming its target:
//
//	EXE = $(FOAM_APPBIN)/pimpleFoam
//	LIB = $(FOAM_LIBBIN)/libfiniteVolume
//
// and an optional Make/options whose EXE_LIBS or LIB_LIBS lines list the
// libraries it links:
//
//	EXE_LIBS = \
//	    -lfiniteVolume \
//	    -lmeshTools
//
// A unit without Make/options has no dependencies.
package unit
