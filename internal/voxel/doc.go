// Package voxel is the interface boundary to the volumetric mapping
// collaborator. It defines the global voxel index type consumed by the
// spatial finders, the observed/distance voxel state exposed per
// block, and a layer comparison utility used to evaluate distance
// fields against each other.
//
// The voxel grid's storage layout is owned by the external mapper;
// this package only models what the scene graph core reads from it.
package voxel
